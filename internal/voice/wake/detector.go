// Package wake names the wake-word model contract. The model itself is
// out of scope — this is the interface boundary the Audio
// Pipeline's consumer calls into, following the DI shape of
// brendaboryszanski-smart-home's application.SpeechToText interface.
package wake

// Detector classifies a single short frame (512 samples)
// as containing the activation phrase.
type Detector interface {
	Detect(frame []int16) (bool, error)
}
