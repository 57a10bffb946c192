// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	serrors "sheetlink/cli/internal/errors"
)

// PresentError is the terminal line for a failed command step: the step title, then
// the error's user-facing message with secrets masked. Typed errors show their own
// message rather than the wrapped chain.
func PresentError(title string, err error) string {
	if err == nil {
		return ""
	}
	return title + ": " + Mask(serrors.MessageOf(err))
}
