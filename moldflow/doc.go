// Package moldflow locates an Autodesk Moldflow Insight installation and
// runs its command line tools (studymod, runstudy and studyrlt). Tools are
// started as child processes through a Commander so they can be faked in
// tests.
package moldflow
