package ledger

// SanitizeFilename exposes sanitizeFilename to the external test package.
var SanitizeFilename = sanitizeFilename
