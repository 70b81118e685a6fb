// in case you need to create an entrypoint with multiple subprograms
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"receipt-impact/src/pkg/bootstrap"
	"receipt-impact/src/pkg/config"
	"receipt-impact/src/pkg/email"
	"receipt-impact/src/pkg/receipt"
	"receipt-impact/src/pkg/report"
	"receipt-impact/src/pkg/util"
)

/*
Pick provider and use it to send a test email to the specified address.
The html and text bodies are read from files.
*/
func testProvider(subprogram string, flags []string) {
	// common flags
	subprogramCmd := flag.NewFlagSet(subprogram, flag.ExitOnError)
	configPath := subprogramCmd.String("config", "./cfg/config.json", "Path to your configuration file.")

	// custom flags
	provider := subprogramCmd.String("provider", "", "Provider to use when sending emails: ses, mailgun or sendgrid (default: email.provider from config)")
	senderAddress := subprogramCmd.String("sender", "", "Sender's address")
	recipientAddress := subprogramCmd.String("recipient", "", "Recipient's address, comma separated for several")
	subject := subprogramCmd.String("subject", "Test subject", "Subject of an email")
	emailHtmlFilePath := subprogramCmd.String("html", "./tmp/email.html", "Html body of the email")
	emailTextFilePath := subprogramCmd.String("text", "./tmp/email.txt", "Text body of the email")

	// parse and init config
	xerr.QuitIfError(subprogramCmd.Parse(flags), "Unable to subprogramCmd.Parse")
	e := bootstrap.InitializeConfigs(*configPath)
	e.QuitIf(xerr.ErrorTypeError)

	util.RequiredFlag(senderAddress, "sender")
	util.RequiredFlag(recipientAddress, "recipient")
	util.EnsureFlags()
	selected := pickProvider(*provider)

	htmlFileContentBytes, err := os.ReadFile(*emailHtmlFilePath)
	xerr.QuitIfError(err, fmt.Sprintf("Unable to read file '%s'", *emailHtmlFilePath))
	tl.Log(tl.Verbose, palette.BlueDim, "Full Email:\n```\n%s\n```", htmlFileContentBytes)
	textFileContentBytes, err := os.ReadFile(*emailTextFilePath)
	xerr.QuitIfError(err, fmt.Sprintf("Unable to read file '%s'", *emailTextFilePath))
	tl.Log(tl.Verbose, palette.BlueDim, "Full Email:\n```\n%s\n```", textFileContentBytes)

	sendEmails := true
	e = email.SendMessage(
		context.Background(), selected, &sendEmails, *senderAddress, strings.Split(*recipientAddress, ","),
		*subject, string(textFileContentBytes), string(htmlFileContentBytes), []string{"test"},
	)
	e.QuitIf(xerr.ErrorTypeError)
}

/*
Build the monthly environmental report and email it. With -dry-run the email
is only logged, which is handy to check the numbers before sending.
*/
func sendReport(subprogram string, flags []string) {
	subprogramCmd := flag.NewFlagSet(subprogram, flag.ExitOnError)
	configPath := subprogramCmd.String("config", "./cfg/config.json", "Path to your configuration file.")

	provider := subprogramCmd.String("provider", "", "Provider to use when sending emails: ses, mailgun or sendgrid (default: email.provider from config)")
	senderAddress := subprogramCmd.String("sender", "", "Sender's address")
	recipientAddress := subprogramCmd.String("recipient", "", "Recipient's address, comma separated for several")
	outDir := subprogramCmd.String("out", "", "Directory to scan for receipt-analysis.json files (default: receipt.output_dir from config)")
	year := subprogramCmd.Int("year", 0, "Year to report (default: previous month's year)")
	month := subprogramCmd.Int("month", 0, "Month to report 1-12 (default: previous month)")
	timezone := subprogramCmd.String("tz", "America/Argentina/Buenos_Aires", "IANA timezone used to place receipts in a month")
	dryRun := subprogramCmd.Bool("dry-run", false, "Log the email instead of sending it")

	xerr.QuitIfError(subprogramCmd.Parse(flags), "Unable to subprogramCmd.Parse")
	e := bootstrap.InitializeConfigs(*configPath)
	e.QuitIf(xerr.ErrorTypeError)

	util.RequiredFlag(senderAddress, "sender")
	util.RequiredFlag(recipientAddress, "recipient")
	util.EnsureFlags()
	selected := pickProvider(*provider)

	scanDir := *outDir
	if scanDir == "" {
		scanDir = receipt.Cfg.OutputDir
	}
	options := report.DefaultOptions(scanDir)
	options.Timezone = *timezone
	// Reports usually go out at the start of a month for the one that just ended.
	previous := time.Now().AddDate(0, -1, 0)
	options.Year, options.Month = previous.Year(), previous.Month()
	if *year != 0 {
		options.Year = *year
	}
	if *month != 0 {
		options.Month = time.Month(*month)
	}

	monthly, e := report.Build(options)
	e.QuitIf(xerr.ErrorTypeError)
	htmlText, e := report.RenderHTML(monthly)
	e.QuitIf(xerr.ErrorTypeError)

	send := !*dryRun
	e = email.SendMessage(
		context.Background(), selected, &send, *senderAddress, strings.Split(*recipientAddress, ","),
		monthly.Title, report.RenderText(monthly), htmlText, []string{"monthly-report"},
	)
	e.QuitIf(xerr.ErrorTypeError)
}

// pickProvider resolves the provider flag and exits if its credentials are missing.
func pickProvider(flagValue string) email.Provider {
	provider := email.Provider(strings.ToLower(strings.TrimSpace(flagValue)))
	if provider == "" {
		provider = email.Provider(email.Cfg.Provider)
	}
	config.CheckIfEnvVarsPresent(email.RequiredEnvVars(provider)...)
	return provider
}

func main() {
	// Check if there are enough arguments
	if len(os.Args) < 2 {
		tl.Log(tl.Error, palette.Red, "Usage: %s", "go run ./src/cmd/send-email <test-provider|report> [flags]")
		os.Exit(1)
	}
	subprogram := os.Args[1]
	flags := os.Args[2:]

	// Switch subprogram based on the first argument
	switch subprogram {
	case "test-provider":
		testProvider(subprogram, flags)
	case "report":
		sendReport(subprogram, flags)
	default:
		tl.Log(tl.Error, palette.Red, "Unknown subprogram: %s", subprogram)
		os.Exit(1)
	}
}
