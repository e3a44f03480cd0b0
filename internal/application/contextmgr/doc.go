// Package contextmgr bounds a conversation's context: it serves the recent
// message window (prefixed by the running summary) and compacts older
// messages into that summary when count or token thresholds are exceeded.
// Archived messages stay available for audit and history retrieval.
package contextmgr
