// Package transcoding implements the conversion stage: ffmpeg turns the
// fetched media into the job's requested output (mp3 or height-capped mp4)
// inside the job workspace, and ffprobe validates the result before the job
// moves on to delivery.
package transcoding
