// Package io provides JSON import and export for the files a build persists:
// the material manifest, the build cache and the site configuration snapshot.
//
// # Atomic writes
//
// Every export goes through [WriteFileAtomic]: the data is written to a
// sibling temporary file which is then renamed over the destination. Readers
// therefore observe either the previous content or the new content, never a
// truncated file, even if the process is killed mid-write.
//
// # Format
//
// Exports are indented with two spaces and end with a newline so they diff
// cleanly when a material directory is kept under version control.
package io
