package common

// AccessTokenCookieName is the cookie that carries the access token for
// browser clients. API clients may send it as a Bearer token instead.
const AccessTokenCookieName = "access_token"

// SupportedAudioFormats lists the extensions the audio processor can produce.
var SupportedAudioFormats = []string{"mp3", "wav", "flac", "aac", "ogg", "m4a"}
