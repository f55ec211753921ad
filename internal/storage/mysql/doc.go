// Package mysql provides repositories backed by MySQL for swarm run
// results and generated-app lifecycle state. It encapsulates schema
// migrations and strongly typed queries, with in-memory counterparts
// for testing and single-node development.
package mysql
