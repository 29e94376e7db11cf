// Command fetch-tokenizer downloads a tokenizer artifact set from the hub
// into a local directory, so deployments can run with LOCAL_ONLY=1.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/fractalmind-ai/tokenizerd/internal/fingerprint"
	"github.com/fractalmind-ai/tokenizerd/internal/hub"
	"github.com/fractalmind-ai/tokenizerd/internal/logging"
	"github.com/fractalmind-ai/tokenizerd/internal/tokenizer"
)

// companionFiles ship alongside tokenizer.json in most repos but are not
// required for encoding, so missing ones are skipped.
var companionFiles = []string{
	"tokenizer_config.json",
	"special_tokens_map.json",
	"generation_config.json",
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	flags := flag.NewFlagSet("fetch-tokenizer", flag.ContinueOnError)
	flags.SetOutput(out)
	repo := flags.String("repo", "Qwen/Qwen2.5-3B-Instruct", "hub repository id")
	dest := flags.String("dest", "assets/qwen-tokenizer", "destination directory")
	endpoint := flags.String("endpoint", os.Getenv("HF_ENDPOINT"), "hub endpoint override")
	token := flags.String("token", os.Getenv("HF_TOKEN"), "hub auth token")
	revision := flags.String("revision", "main", "repository revision")
	verbose := flags.Bool("verbose", false, "enable verbose logging")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	logger := logging.New(*verbose)
	client := hub.NewClient("", logger).
		WithEndpoint(*endpoint).
		WithAuth(*token).
		WithRevision(*revision)

	if err := os.MkdirAll(*dest, 0755); err != nil {
		fmt.Fprintf(out, "failed to create %s: %v\n", *dest, err)
		return 1
	}

	ctx := context.Background()

	// tokenizer.json is the one file the service cannot run without.
	if err := fetchInto(ctx, client, *repo, tokenizer.ArtifactFileName, *dest, out); err != nil {
		fmt.Fprintf(out, "failed to fetch %s: %v\n", tokenizer.ArtifactFileName, err)
		return 1
	}
	for _, name := range companionFiles {
		if err := fetchInto(ctx, client, *repo, name, *dest, out); err != nil {
			fmt.Fprintf(out, "skipping %s: %v\n", name, err)
		}
	}

	if sum, ok := fingerprint.File(filepath.Join(*dest, tokenizer.ArtifactFileName)); ok {
		fmt.Fprintf(out, "%s md5=%s\n", tokenizer.ArtifactFileName, sum)
	}
	return 0
}

func fetchInto(ctx context.Context, client *hub.Client, repo, name, dest string, out io.Writer) error {
	cached, err := client.Fetch(ctx, repo, name, false)
	if err != nil {
		return err
	}

	destPath := filepath.Join(dest, name)
	size, err := copyFile(cached, destPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s (%s)\n", destPath, humanize.Bytes(uint64(size)))
	return nil
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	tmp := dst + ".tmp"
	outFile, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}
	size, err := io.Copy(outFile, in)
	if err != nil {
		_ = outFile.Close()
		_ = os.Remove(tmp)
		return 0, err
	}
	if err := outFile.Close(); err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	return size, nil
}
