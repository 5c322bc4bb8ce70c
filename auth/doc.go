// Package auth guards the HTTP surface.
//
// Requests are authenticated by an API key header or a bearer JWT, and the
// resulting Identity's roles are checked against the action a route performs.
// Read routes (search, resolve, compare, stats) and operator routes (health
// reset, cache sweep) are distinguished by ActionRead and ActionOperate.
package auth
