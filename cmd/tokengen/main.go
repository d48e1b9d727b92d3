// Package main provides a CLI tool for generating bearer tokens for the
// consentd API. Tokens are signed with CONSENTD_JWT_SIGNING_KEY, or the
// development key when it is unset, so they never work against production.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	jwttoken "consentd/internal/jwt_token"
	"consentd/internal/platform/config"
	"consentd/pkg/secrets"
)

const defaultTokenTTL = time.Hour

type tokenOutput struct {
	Token     string            `json:"token"`
	Subject   string            `json:"subject"`
	Roles     []jwttoken.Role   `json:"roles"`
	ExpiresIn string            `json:"expires_in"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	subjectCmd := flag.NewFlagSet("subject", flag.ExitOnError)
	subjectID := subjectCmd.String("id", "", "Data subject ID (required)")
	subjectTTL := subjectCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	subjectJSON := subjectCmd.Bool("json", false, "Output as JSON")

	dpoCmd := flag.NewFlagSet("dpo", flag.ExitOnError)
	dpoName := dpoCmd.String("name", "dpo", "Officer name, recorded as assessment approver")
	dpoTTL := dpoCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	dpoJSON := dpoCmd.Bool("json", false, "Output as JSON")

	apiKeyCmd := flag.NewFlagSet("apikey", flag.ExitOnError)
	apiKeyName := apiKeyCmd.String("name", "", "Service name (required)")
	apiKeyJSON := apiKeyCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "subject":
		_ = subjectCmd.Parse(os.Args[2:])
		if strings.TrimSpace(*subjectID) == "" {
			fmt.Fprintln(os.Stderr, "subject: -id is required")
			os.Exit(1)
		}
		generate(*subjectID, jwttoken.RoleSubject, *subjectTTL, *subjectJSON)
	case "dpo":
		_ = dpoCmd.Parse(os.Args[2:])
		generate(*dpoName, jwttoken.RoleDPO, *dpoTTL, *dpoJSON)
	case "apikey":
		_ = apiKeyCmd.Parse(os.Args[2:])
		name := strings.TrimSpace(*apiKeyName)
		if name == "" || strings.ContainsAny(name, ",=.") {
			fmt.Fprintln(os.Stderr, "apikey: -name is required and may not contain ',', '=' or '.'")
			os.Exit(1)
		}
		generateAPIKey(name, *apiKeyJSON)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tokengen - Generate bearer tokens for the consentd API

Usage:
  tokengen <command> [flags]

Commands:
  subject   Token for a data subject, limited to their own records
  dpo       Token for a data protection officer
  apikey    API key for a service that records processing activity

Examples:
  tokengen subject -id u1
  tokengen dpo -name alice -ttl 8h -json
  tokengen apikey -name billing

The signing key and issuer come from CONSENTD_JWT_SIGNING_KEY and
CONSENTD_JWT_ISSUER, matching the server.`)
}

func generate(subject string, role jwttoken.Role, ttl time.Duration, jsonOutput bool) {
	cfg := config.FromEnv()
	svc := jwttoken.NewService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, ttl)
	roles := []jwttoken.Role{role}

	token, err := svc.Issue(subject, roles)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	keyType := "configured"
	if cfg.UsesDevSigningKey() {
		keyType = "dev"
	}

	if jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			Subject:   subject,
			Roles:     roles,
			ExpiresIn: ttl.String(),
			Usage: map[string]string{
				"header":      "Authorization: Bearer <token>",
				"signing_key": keyType,
			},
		})
		return
	}

	fmt.Println("Bearer Token (JWT)")
	fmt.Println("==================")
	fmt.Printf("Signing Key: %s\n", keyType)
	fmt.Printf("Subject:     %s\n", subject)
	fmt.Printf("Role:        %s\n", role)
	fmt.Printf("Expires In:  %s\n", ttl)
	fmt.Println()
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/v1/...")
}

type apiKeyOutput struct {
	Name   string `json:"name"`
	Key    string `json:"key"`
	Hash   string `json:"hash"`
	EnvVar string `json:"env_var"`
}

// generateAPIKey prints a fresh key and the CONSENTD_API_KEYS entry the
// server needs. Only the hash of the secret is stored server side.
func generateAPIKey(name string, jsonOutput bool) {
	key, err := secrets.NewKey(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating key: %v\n", err)
		os.Exit(1)
	}
	hash, err := secrets.Hash(key.Secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing key: %v\n", err)
		os.Exit(1)
	}
	entry := name + "=" + hash

	if jsonOutput {
		printJSON(apiKeyOutput{Name: name, Key: key.Token, Hash: hash, EnvVar: entry})
		return
	}

	fmt.Println("Service API Key")
	fmt.Println("===============")
	fmt.Printf("Service: %s\n", name)
	fmt.Printf("Key:     %s\n", key.Token)
	fmt.Println()
	fmt.Println("Add to CONSENTD_API_KEYS (comma separated):")
	fmt.Printf("  %s\n", entry)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"X-API-Key: <key>\" -X POST http://localhost:8080/v1/records")
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
