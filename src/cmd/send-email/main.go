// in case you need to create an entrypoint with multiple subprograms
package main

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"invoice-bot/src/pkg/config"
	"invoice-bot/src/pkg/email"
	"invoice-bot/src/pkg/util"
)

/*
Pick provider and use it to send a test email, so archive credentials can be
checked before the bot is started. Sender and recipients default to the
email section of the config file.
*/
func testProvider(subprogram string, flags []string) {
	// common flags
	subprogramCmd := flag.NewFlagSet(subprogram, flag.ExitOnError)
	configPath := subprogramCmd.String("config", "./cfg/config.json", "Path to the JSON config file")

	// custom flags
	provider := subprogramCmd.String("provider", "", "Provider to use when sending emails (default: email.provider from config)")
	senderAddress := subprogramCmd.String("sender", "", "Sender's address (default: email.sender from config)")
	recipientAddress := subprogramCmd.String("recipient", "", "Comma separated recipients (default: email.recipients from config)")
	subject := subprogramCmd.String("subject", "Test subject", "Subject of an email")
	emailHtmlFilePath := subprogramCmd.String("html", "", "Html of an email")
	emailTextFilePath := subprogramCmd.String("text", "./tmp/invoice_1001.txt", "Text of an email")
	attachmentPath := subprogramCmd.String("attach", "", "File to attach, for example a rendered invoice PDF")
	dryRun := subprogramCmd.Bool("dry-run", false, "Only log the email")

	// parse and init config
	xerr.QuitIfError(subprogramCmd.Parse(flags), "Unable to subprogramCmd.Parse")
	config.LoadDotEnv()
	config.InitializeConfig(*configPath).QuitIf(xerr.ErrorTypeError)
	localCfg, e := config.Section[email.Config]("email")
	e.QuitIf(xerr.ErrorTypeError)
	cfg := email.InitializeConfig(localCfg)

	if *provider == "" {
		*provider = string(cfg.Provider)
	}
	if *senderAddress == "" {
		*senderAddress = cfg.Sender
	}
	if *recipientAddress == "" {
		*recipientAddress = strings.Join(cfg.Recipients, ",")
	}
	util.RequiredFlag(senderAddress, "sender")
	util.RequiredFlag(recipientAddress, "recipient")
	util.RequiredFlag(provider, "provider")
	util.EnsureFlags()

	config.CheckIfEnvVarsPresent(email.RequiredEnvVars(email.Provider(*provider))...)
	recipientAddresses := strings.Split(*recipientAddress, ",")

	// read text file
	textFileContentBytes, err := os.ReadFile(*emailTextFilePath)
	xerr.QuitIfError(err, fmt.Sprintf("Unable to read file '%s'", *emailTextFilePath))
	tl.Log(tl.Verbose, palette.BlueDim, "Full Email:\n```\n%s\n```", textFileContentBytes)
	// read html file
	htmlFileContent := ""
	if *emailHtmlFilePath != "" {
		htmlFileContentBytes, err := os.ReadFile(*emailHtmlFilePath)
		xerr.QuitIfError(err, fmt.Sprintf("Unable to read file '%s'", *emailHtmlFilePath))
		htmlFileContent = string(htmlFileContentBytes)
	}

	var attachments []email.Attachment
	if *attachmentPath != "" {
		attachmentBytes, err := os.ReadFile(*attachmentPath)
		xerr.QuitIfError(err, fmt.Sprintf("Unable to read file '%s'", *attachmentPath))
		contentType := mime.TypeByExtension(filepath.Ext(*attachmentPath))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		attachments = append(attachments, email.Attachment{Filename: filepath.Base(*attachmentPath), ContentType: contentType, Data: attachmentBytes})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// send email here
	sendEmails := !*dryRun
	e = email.NewClient(cfg).SendMessage(ctx, email.Provider(*provider), &sendEmails, *senderAddress, recipientAddresses, *subject, string(textFileContentBytes), htmlFileContent, attachments)
	e.QuitIf(xerr.ErrorTypeError)
}

func main() {
	// Check if there are enough arguments
	if len(os.Args) < 2 {
		tl.Log(tl.Error, palette.Red, "Usage: %s", "go run ./src/cmd/send-email subprogram_name(for example test-provider)")
		os.Exit(1)
	}
	subprogram := os.Args[1]
	flags := os.Args[2:]

	// Switch subprogram based on the first argument
	switch subprogram {
	case "test-provider":
		testProvider(subprogram, flags)
	default:
		tl.Log(tl.Error, palette.Red, "Unknown subprogram: %s", subprogram)
		os.Exit(1)
	}
}
