package main

import (
	"fmt"
	"os/exec"
)

// findRecorderBinary finds the recorder binary under test.
// It relies on the Makefile setting the PATH to include the local ./bin directory.
func findRecorderBinary() (string, error) {
	path, err := exec.LookPath("recorder")
	if err != nil {
		return "", fmt.Errorf("could not find 'recorder' binary in PATH. Ensure 'make test-e2e' is used")
	}
	return path, nil
}

const anchorSpec = `describe("checkout", () => {
  it("buys a thing", () => {
    cy.startRecording();
  });
});
`

const eventLog = `{"type":"session-start","data":{"sessionId":"","url":"https://shop.test/","viewport":{"width":1280,"height":800},"userAgent":"e2e"},"context":{"timestamp":1,"url":"https://shop.test/"}}
{"type":"input","data":{"selector":"#email","value":"a@b.test","inputType":"email"},"context":{"timestamp":2,"url":"https://shop.test/"}}
{"type":"click","data":{"selector":"#buy","coordinates":{"x":3,"y":4}},"context":{"timestamp":3,"url":"https://shop.test/"}}
`
