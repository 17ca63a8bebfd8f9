// Package tts turns request text into playable audio. A Synthesizer sends
// one prompt to a ttypes.SpeechEngine and pipes the base64 PCM reply through
// the audio codec, producing both a Buffer and a WAV blob.
package tts
