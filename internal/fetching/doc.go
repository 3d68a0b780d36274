// Package fetching implements the first workflow stage: it resolves source
// metadata with yt-dlp and downloads the media into the job's scoped working
// directory. Nothing upstream is persisted beyond the fetched file; a retry
// starts from a clean directory.
package fetching
