// Package delivery implements the final workflow stage: the produced file is
// sent back to the requesting chat, or uploaded to object storage with a
// link message when it exceeds the chat upload limit. The stage also retires
// the job's status message so finished chats stay tidy.
package delivery
