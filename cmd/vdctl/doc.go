// Command vdctl maintains a virtual-drive index without the HTTP server.
//
// It opens the same SQLite index the server uses and runs one operation
// against the mounted roots:
//
//	vdctl index                 incremental index of every root
//	vdctl reindex               clear the index and rebuild it
//	vdctl scan                  drop records whose paths are gone
//	vdctl duplicates            report content stored more than once
//	vdctl resolve <path>        print the fingerprint of a path
//	vdctl paths <fingerprint>   print every live path for a fingerprint
//	vdctl fingerprint <file>    fingerprint a file without touching the index
//
// Settings come from flags, VD_* environment variables or a YAML file
// given with --config, in that order of precedence.
package main
