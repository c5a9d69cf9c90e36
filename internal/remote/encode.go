package remote

import (
	"encoding/base64"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
)

// powerShellPrefix starts a non-interactive PowerShell that takes its script
// from -EncodedCommand.
const powerShellPrefix = "powershell.exe -NonInteractive -NoProfile -ExecutionPolicy Bypass -EncodedCommand "

// EncodeCommand encodes script for -EncodedCommand: base64 over UTF-16LE.
// This avoids quoting the script for whatever shell sits in front of
// PowerShell on the host.
func EncodeCommand(script string) (string, error) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	b, err := enc.String(script)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode command as UTF-16")
	}
	return base64.StdEncoding.EncodeToString([]byte(b)), nil
}

// powerShellCommandLine is the full command line that runs script.
func powerShellCommandLine(script string) (string, error) {
	enc, err := EncodeCommand(script)
	if err != nil {
		return "", err
	}
	return powerShellPrefix + enc, nil
}
