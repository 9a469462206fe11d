// Package Sockets is the broker's channel router. Each chat session maps to
// a room; a room fans events out to its subscribers in the order they were
// broadcast. A dropped connection is unsubscribed immediately but the session
// keeps running, so a client can rejoin and resume receiving events.
//
// Reconnection policy (clients): bounded retry with exponential backoff,
// 5 attempts starting at 1s and doubling, then surface a hard failure. After
// reconnecting, a client re-sends join and re-fetches history over HTTP;
// persistence-before-broadcast guarantees the fetch is consistent with
// everything that was broadcast.
package Sockets
