// Package runlog keeps an audit trail of planning runs. Records are written
// after every run and read back by the history command and the HTTP API; they
// never feed a later simulation.
package runlog
