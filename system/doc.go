// Package system holds operating system helpers for long running workers.
package system
