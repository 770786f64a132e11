// Package thumbnail renders small JPEG previews of images and videos.
//
// Previews are cached on disk under the content fingerprint, so every path
// sharing the same bytes (including flash-transferred links) shares one
// cache entry. Video frames and formats the Go decoders cannot read are
// extracted with an ffmpeg child process.
package thumbnail
