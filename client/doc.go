/*
Package client contains the long running processes of a mfauto node.

A [Worker] executes pipelines submitted over NATS or dropped in a folder
watched by a [Watcher], one at a time. A [MetricsClient] publishes the load
of the host so submitters can pick idle machines.

All of them implement [RunStop] and are grouped with a [RunGroup].
*/
package client
