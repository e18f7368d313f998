// Package store implements the reactive in-memory data layer.
//
// Records are loosely-typed maps grouped into named models; the store
// enforces no schema (validation is the flow engine's job). Every
// mutation notifies scoped and global subscribers synchronously and
// announces a typed "store:<model>:<verb>" event on the bus. Reads
// support filter/sort/paginate queries, and the whole store can be
// snapshotted and rolled back through a LIFO transaction stack.
package store
