package keys

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"evergreen/src/security"
)

// PrintTokenHash hashes token, or the first line of in when token is empty, and
// writes the API_TOKEN_HASH line to out.
func PrintTokenHash(out io.Writer, in io.Reader, token string) error {
	if strings.TrimSpace(token) == "" && in != nil {
		reader := bufio.NewReader(in)
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("read token: %w", err)
		}
		token = line
	}

	hashed, err := security.HashToken(token)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "API_TOKEN_HASH=%s\n", hashed)
	return err
}
