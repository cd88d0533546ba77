// Package mock provides in-memory implementations of the platform
// interfaces for tests. Platform keeps roles, members and messages in maps,
// records every call in order, and can be told to fail specific
// operations. Collector lets a test deliver attachments and button presses
// to whoever is waiting. Responder records what a handler answered.
package mock
