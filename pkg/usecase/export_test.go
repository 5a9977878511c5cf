package usecase

// Reconcile is exported for testing
var Reconcile = reconcile

// FormatListReply is exported for testing
var FormatListReply = formatListReply

// DisplayTags is exported for testing
var DisplayTags = displayTags

// VoiceTranscriptReply is exported for testing
var VoiceTranscriptReply = voiceTranscriptReply
