// Package workflow advances media jobs through the processing stages.
//
// The Manager runs one or more worker lanes. Each lane atomically claims the
// oldest claimable job (pending, fetched, or transcoded), runs the matching
// stage handler (fetch, transcode, deliver) under a heartbeat, and persists
// the resulting transition. Jobs whose heartbeat expires are reclaimed back
// to pending, so a crashed lane never strands work.
//
// Failures are terminal from the manager's point of view: the job is marked
// failed with a classified message, its workspace is removed, and the
// requesting chat is told what happened. Retry is an explicit operator
// action that resets the job to pending with its stage products cleared.
package workflow
