package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"kingbot-go/internal/config"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== KingBot Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit capital and risk")
		fmt.Println("3) Edit symbols and cadence")
		fmt.Println("4) Save config")
		fmt.Println("5) Launch bot")
		fmt.Println("6) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editRisk(reader, cfg)
		case "3":
			editMarkets(reader, cfg)
		case "4":
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(os.Stderr, "not saved: %v\n", err)
			} else if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			launchBot(reader)
		case "6":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Mode: %s\n", cfg.Trading.Mode)
	fmt.Println("Symbols:", strings.Join(cfg.Exchange.Symbols, ", "))
	fmt.Printf("Capital: %.2f %s (%.2f per symbol)\n", cfg.Trading.Capital, cfg.Trading.QuoteAsset, cfg.Trading.Capital/float64(max(len(cfg.Exchange.Symbols), 1)))
	fmt.Printf("Stop-loss: %.2f%%\n", cfg.Trading.StopLossPct*100)
	fmt.Printf("Per-trade notional cap: %.2f (0 = off)\n", cfg.Risk.MaxNotionalPerTrade)
	fmt.Printf("RSI buy < %.0f | sell > %.0f\n", cfg.Strategy.Params.RSIBuyBelow, cfg.Strategy.Params.RSISellAbove)
	fmt.Printf("Poll every %s | status every %s\n", cfg.PollInterval(), cfg.StatusInterval())
	fmt.Printf("Telegram: %v\n", cfg.Notify.Telegram.ChatID != "")
}

func editRisk(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Capital / Risk ---")
	cfg.Trading.Capital = promptFloat(reader, "Capital", cfg.Trading.Capital)
	cfg.Trading.StopLossPct = promptPercent(reader, "Stop-loss (%)", cfg.Trading.StopLossPct)
	cfg.Risk.MaxNotionalPerTrade = promptFloat(reader, "Max notional per trade", cfg.Risk.MaxNotionalPerTrade)
	cfg.Strategy.Params.RSIBuyBelow = promptFloat(reader, "RSI buy below", cfg.Strategy.Params.RSIBuyBelow)
	cfg.Strategy.Params.RSISellAbove = promptFloat(reader, "RSI sell above", cfg.Strategy.Params.RSISellAbove)
}

func editMarkets(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Symbols / Cadence ---")
	fmt.Printf("Current symbols: %s\n", strings.Join(cfg.Exchange.Symbols, ", "))
	fmt.Print("Enter symbols comma-separated, e.g. BTC/USDC (blank to keep): ")
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		parts := strings.Split(strings.TrimSpace(line), ",")
		cfg.Exchange.Symbols = nil
		for _, p := range parts {
			if trimmed := strings.ToUpper(strings.TrimSpace(p)); trimmed != "" {
				cfg.Exchange.Symbols = append(cfg.Exchange.Symbols, trimmed)
			}
		}
	}
	cfg.Trading.PollIntervalSecs = int(promptFloat(reader, "Poll interval (s)", float64(cfg.Trading.PollIntervalSecs)))
	cfg.Trading.StatusIntervalSecs = int(promptFloat(reader, "Status interval (s)", float64(cfg.Trading.StatusIntervalSecs)))
}

func launchBot(reader *bufio.Reader) {
	fmt.Println("Launching bot (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/bot")
	cmd.Env = append(os.Environ(), "KINGBOT_CONFIG="+locateConfig())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start bot: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop the bot and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%.2f]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %.2f\n", current)
		return current
	}
	return val
}

func promptPercent(reader *bufio.Reader, label string, current float64) float64 {
	pct := promptFloat(reader, label, current*100)
	return pct / 100
}

func loadConfig() (*config.Config, error) {
	return config.Load(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	if p := os.Getenv("KINGBOT_CONFIG"); p != "" {
		return filepath.Clean(p)
	}
	return filepath.Clean(defaultConfigPath)
}
