/*
Package storage persists sessions and users.

MongoDB is the system of record. Redis sits in front of session reads with a
short TTL; a save invalidates the cached entry instead of rewriting it, so
the cache can never serve a session newer than what Mongo holds.
*/
package storage
