package elicit

// Version is the library version. Release builds override it via
// -ldflags "-X github.com/aretw0/elicit.Version=vX.Y.Z".
var Version = "0.1.0-dev"
