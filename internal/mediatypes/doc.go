// Package mediatypes classifies indexed entries by file-name extension.
//
// The classification is advisory: it is cached on each index record to make
// type queries cheap, and recomputed whenever a record is rewritten.
//
//	t := mediatypes.FromName("movie.MKV") // mediatypes.FileTypeVideo
//
// FileTypeDocuments is a query group; Expand turns it into the stored types it
// covers (text, word, excel, ppt).
package mediatypes
