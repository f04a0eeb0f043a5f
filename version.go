package taskmaster

// Version is the current release version.
const Version = "1.0.0"
