package data

import "errors"

// ErrNotFound is returned in APIs if a job or artifact is not found
var ErrNotFound = errors.New("not found")

// ErrExecutable is returned when a Moldflow executable is missing or does
// not behave like a Moldflow tool
var ErrExecutable = errors.New("moldflow executable error")

// ErrNoOutput is returned when a Moldflow tool ran but did not produce the
// expected output file
var ErrNoOutput = errors.New("moldflow tool produced no output")

// ErrUnknownParameter is returned when a process parameter is not in the
// TCode database
var ErrUnknownParameter = errors.New("unknown parameter")

// ErrUnknownMaterial is returned when a material is not in the material
// database
var ErrUnknownMaterial = errors.New("unknown material")

// ErrParse is returned when an exported file cannot be decoded
var ErrParse = errors.New("parse error")

// ErrNoMesh is returned when a mesh result is processed without a mesh
var ErrNoMesh = errors.New("no mesh")
