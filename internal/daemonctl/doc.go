// Package daemonctl starts and stops the ainotesd process on behalf of the
// CLI using the pid file and the HTTP status endpoint.
package daemonctl
