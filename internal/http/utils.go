package http

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/kui/internal/shared/types"
)

const maxPayloadBytes = 1 << 20

var (
	bindingNamePattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]{0,127}$`)
	blobIDPattern      = regexp.MustCompile(`^[0-9a-fA-F-]{1,64}$`)
)

// validateBindingName accepts JavaScript identifier-like names
func validateBindingName(name string) error {
	if !bindingNamePattern.MatchString(name) {
		return fmt.Errorf("invalid binding name %q", name)
	}
	return nil
}

// validateBlobID accepts the uuid part of a blob reference
func validateBlobID(name string) error {
	if !blobIDPattern.MatchString(name) {
		return fmt.Errorf("invalid blob id %q", name)
	}
	return nil
}

// readPayload decodes an optional JSON object body
func readPayload(c *gin.Context) (types.Payload, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(raw) > maxPayloadBytes {
		return nil, errors.New("payload too large")
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	var payload types.Payload
	if err := sonic.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	return payload, nil
}
