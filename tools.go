//go:build tools

package tools

// mockery v2 is used as an installed binary, so no import is needed.
// Regenerate the driver mock with:
//
//	mockery --name Driver --dir pkg/output --output pkg/output/mocks --with-expecter
