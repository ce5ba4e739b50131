// Package trace implements framegraph.Device in software.
//
// The trace device creates no GPU objects. It records every call, executes
// submissions immediately (checking that every semaphore wait is already
// satisfied), advances a fake timestamp clock and keeps counts of live
// objects. It backs the framegraph tests and the fgdemo command, and is
// registered with the backend registry as "trace".
//
//	dev := trace.New()
//	g := framegraph.New(dev)
//	...
//	for _, s := range dev.Submissions() {
//	    fmt.Println(s.Queue, s.Label, len(s.Commands))
//	}
package trace
