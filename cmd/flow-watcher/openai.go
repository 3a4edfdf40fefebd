// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thibo73800/flow-watcher/internal/openai"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the OpenAI models available to the API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := openaiClient(cmd, loadConfig(cmd, nil))
		if err != nil {
			return err
		}
		models, err := client.ListModels(cmd.Context())
		if err != nil {
			return err
		}
		for _, m := range models {
			fmt.Println(m.ID)
		}
		return nil
	},
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <audio-file>",
	Short: "Transcribe an audio file",
	Long: `Transcribe uploads an audio file to the OpenAI transcription endpoint
and prints the text, or writes it to --out.`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

var speakCmd = &cobra.Command{
	Use:   "speak [text...]",
	Short: "Synthesize speech from text",
	Long: `Speak converts text (the arguments, or the contents of --file) to
speech and saves the audio to --out.`,
	RunE: runSpeak,
}

func init() {
	transcribeCmd.Flags().String("language", "", "ISO-639-1 language hint (default from openai.language)")
	transcribeCmd.Flags().String("model", "", "transcription model (default from openai.transcription_model)")
	transcribeCmd.Flags().String("prompt", "", "optional text to guide the transcription")
	transcribeCmd.Flags().String("out", "", "write the transcript to this file")

	speakCmd.Flags().String("out", "output_speech.mp3", "output audio file")
	speakCmd.Flags().String("file", "", "read the text from this file")
	speakCmd.Flags().String("voice", "", "voice (default from openai.voice)")
	speakCmd.Flags().String("model", "", "speech model (default from openai.speech_model)")

	rootCmd.AddCommand(modelsCmd, transcribeCmd, speakCmd)
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd, map[string]string{
		"openai.language":            "language",
		"openai.transcription_model": "model",
	})
	client, err := openaiClient(cmd, cfg)
	if err != nil {
		return err
	}
	prompt, _ := cmd.Flags().GetString("prompt")
	tr, err := client.Transcribe(cmd.Context(), args[0], openai.TranscribeOptions{
		Model:    cfg.OpenAI.TranscriptionModel,
		Language: cfg.OpenAI.Language,
		Prompt:   prompt,
	})
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		fmt.Println(tr.Text)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(out, []byte(tr.Text), 0o644); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	fmt.Printf("Transcript saved to %s\n", out)
	return nil
}

func runSpeak(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd, map[string]string{
		"openai.voice":        "voice",
		"openai.speech_model": "model",
	})

	text := strings.Join(args, " ")
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading text file: %w", err)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("provide text to speak as arguments or with --file")
	}

	client, err := openaiClient(cmd, cfg)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	opts := openai.SpeechOptions{
		Model:  cfg.OpenAI.SpeechModel,
		Voice:  cfg.OpenAI.Voice,
		Format: strings.TrimPrefix(filepath.Ext(out), "."),
	}
	if err := client.Speak(cmd.Context(), text, opts, f); err != nil {
		f.Close()
		os.Remove(out)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}
	fmt.Printf("Speech saved to %s\n", out)
	return nil
}
