// Package scheduler runs batch cycles over the inbox: it queries Gmail for
// emails that carry neither TodoAgent_Processed nor TodoAgent_Skip and feeds
// them one by one, with a pause in between, to the processing pipeline.
package scheduler
