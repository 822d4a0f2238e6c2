package chatrelay

var Version = "v0.0.1"
