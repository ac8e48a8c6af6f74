/*
Package data contains common data structures that are used throughout the project.

[Mesh] and [Field] hold the geometry and fields exported from a Moldflow study,
[Result] is the decoded form of a studyrlt XML export, and [Job] is the
unit of work tracked by the job store and sent over NATS.
*/
package data
