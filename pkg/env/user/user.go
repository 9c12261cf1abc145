package user

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Env holds the users allowed to send requests through the gateway.
type Env struct {
	Users []string
}

func NewUserEnv() *Env {
	return &Env{}
}

func (u *Env) Populate() error {
	if path := os.Getenv("USERS_FILE_PATH"); path != "" {
		file, err := os.Open(filepath.Clean(path))
		if err != nil {
			return fmt.Errorf("unable to read users file: %w", err)
		}
		defer func() { _ = file.Close() }()

		scanner := bufio.NewScanner(file)
		scanner.Split(bufio.ScanLines)
		for scanner.Scan() {
			if s := strings.TrimSpace(scanner.Text()); s != "" && !strings.HasPrefix(s, "#") {
				u.Users = append(u.Users, s)
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("unable to read users file: %w", err)
		}

		return nil
	}

	if users := os.Getenv("AUTHORIZED_USERS"); users != "" {
		ss := strings.Split(users, ",")
		aux := make([]string, 0, len(ss))

		for _, entry := range ss {
			if s := strings.TrimSpace(entry); s != "" {
				aux = append(aux, s)
			}
		}
		u.Users = aux
	}

	return nil
}

// IsRestricted reports whether an allow-list has been configured.
func (u *Env) IsRestricted() bool {
	return len(u.Users) > 0
}

func (u *Env) IsAuthorized(user string) bool {
	return slices.Contains(u.Users, user)
}
