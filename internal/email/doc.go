// Package email defines the message snapshot the agent works on and the
// label vocabulary that records processing state in Gmail.
//
// Gmail labels are the system of record: TodoAgent_Processed and
// TodoAgent_Skip are terminal, TodoAgent_Failed marks an email for retry, and
// the action labels (Important, Urgent, Meeting, Task) mean the email has been
// categorized and only task creation remains. DeriveStatus turns a label set
// into a State without any network access.
package email
