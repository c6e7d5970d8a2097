// Package rules implements the priority-ordered rule engine.
//
// A Store owns the rule set. The Engine evaluates active rules from the
// highest priority down: each populated criterion (from, fromDomain, subject,
// bodyKeywords) counts once, an exclude keyword vetoes the rule outright, and
// a rule matches when at least half of its criteria hit. The first match wins
// and its label is written to the email.
//
// Rules can be loaded from and exported to YAML:
//
//	rules:
//	  - id: vendor-invoices
//	    name: Vendor invoices
//	    priority: 6
//	    criteria:
//	      fromDomain: [billing.example.com]
//	      subject: [invoice]
//	    action:
//	      label: TodoAgent_Important
//	      priority: 3
package rules
