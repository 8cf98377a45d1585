// Package notify delivers sent notifications to readers.
//
// A Dispatcher receives each notification after it has been stored. The
// LogSink only records it; the MatrixSink posts it to a Matrix room with the
// body rendered from Markdown to HTML. Multi fans out to several sinks.
package notify
