// Package session serializes access to individual sessions. Each session
// advances strictly sequentially: the manager hands out one refcounted
// mutex per active session ID and, optionally, a distributed lock for
// multi-replica deployments.
package session
