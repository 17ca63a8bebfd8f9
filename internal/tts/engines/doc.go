// Package engines contains the speech engines the synthesizer can talk to:
// GeminiEngine calls the Gemini speech model over REST, ToneEngine renders
// an offline test tone in the same payload format.
package engines
