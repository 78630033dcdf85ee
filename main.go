package main

import (
	"os"

	"github.com/zhiweijz/membership-payments/cmd"
	"github.com/zhiweijz/membership-payments/pkg/logger"
)

func main() {
	logger.Init(os.Getenv("APP_ENV"))
	cmd.Execute()
}
