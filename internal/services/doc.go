// Package services holds cross-cutting service plumbing: the failure
// classification sentinels shared by all pipeline stages and context
// helpers that carry job, stage, and correlation identifiers.
package services
