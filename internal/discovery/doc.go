// Package discovery lets the SmartThings hub find the bridge on the local
// network without manual configuration.
//
// The bridge advertises itself over SSDP and watches for the hub's search
// broadcast. Because the bridge usually runs containerised and cannot know
// its externally reachable IP, the exchange is inverted: the hub's broadcast
// carries the hub's own address, and the bridge POSTs its listening port
// back to the hub's /ping endpoint. The hub records the source IP of that
// call and pairs it with the port in the body.
//
// Duplicate broadcasts while an acknowledgement is in flight are dropped
// silently; transport failures are logged and absorbed.
package discovery
