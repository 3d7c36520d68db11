//go:build !ocr

package extractor

// OCREnabled reports whether OCR support is compiled in.
const OCREnabled = false

func newRecognizer(string) (Recognizer, error) {
	return nil, ErrOCRNotEnabled
}

func newRenderer([]byte) (renderer, error) {
	return nil, ErrOCRNotEnabled
}
