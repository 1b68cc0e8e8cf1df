package main

import (
	"fmt"

	"azdoauth/internal/config"
)

func main() {
	fmt.Println("# azdoauth environment variables")
	fmt.Println()
	fmt.Println("Every key of the YAML config can be set from the environment.")
	fmt.Println("Variables take precedence over the config file, which takes precedence over the built-in defaults.")
	fmt.Println()
	fmt.Println("## Variables")
	fmt.Println()

	for _, example := range config.EnvExample(&config.Config{}) {
		fmt.Printf("- `%s`\n", example)
	}

	fmt.Println()
	fmt.Println("## Example")
	fmt.Println()
	fmt.Println("```bash")
	fmt.Println("# Azure DevOps app registration")
	fmt.Println("export AZDOAUTH_PROVIDER_CLIENTID=00000000-0000-0000-0000-000000000000")
	fmt.Println("export AZDOAUTH_PROVIDER_CLIENTSECRET=<client secret JWT>")
	fmt.Println("export AZDOAUTH_PROVIDER_SCOPE='vso.profile vso.work'")
	fmt.Println()
	fmt.Println("# Must match the callback registered for the app")
	fmt.Println("export AZDOAUTH_SERVER_CALLBACKURL=https://auth.example.com/callback/azure-devops")
	fmt.Println()
	fmt.Println("./signin -config azdoauth.yaml")
	fmt.Println("```")
}
