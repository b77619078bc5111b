package login

// ClassifyFailure exposes the sign-in error mapping to tests.
var ClassifyFailure = classifyFailure
