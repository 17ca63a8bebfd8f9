// Package audio turns the speech model's base64 PCM payload into audio a
// person can hear or keep: DecodeBase64 yields raw bytes, InterpretPCM turns
// them into a normalized Buffer, EncodeWAV writes a canonical 44-byte-header
// WAV. Player plays a Buffer once through oto/v3 and releases the clip when
// done.
package audio
