package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brilliance/hwachat/internal/api"
	"github.com/brilliance/hwachat/internal/config"
	"github.com/brilliance/hwachat/internal/models"
)

var uploadKindFlag string

var uploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Upload an image or document and print its URL",
	Long: `Upload a file to the homework assistant and print the hosted URL.

Images must be JPEG or PNG up to 5 MiB; documents must be PDF up to
10 MiB. The kind is inferred from the file extension unless --kind is
given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		creds, err := config.CredentialsFromConfig(cfg)
		if err != nil {
			return err
		}
		client, err := api.NewClient(cfg.APIBaseOrDefault(), creds)
		if err != nil {
			return err
		}
		return runUpload(api.NewUploader(client), os.Stdout, args[0], uploadKindFlag)
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadKindFlag, "kind", "", "Attachment kind: image or document (default: inferred from extension)")
}

// fileUploader is the slice of api.Uploader the command needs.
type fileUploader interface {
	UploadFile(path string, kind models.AttachmentKind) (*api.RemoteFile, error)
}

func runUpload(up fileUploader, out io.Writer, path, kindFlag string) error {
	kind, err := resolveKind(path, kindFlag)
	if err != nil {
		return err
	}

	spin := newSpinner("Uploading " + filepath.Base(path))
	spin.start()
	remote, err := up.UploadFile(path, kind)
	if err != nil {
		spin.stopWithError()
		return err
	}
	spin.stopWithSuccess("Uploaded")

	fmt.Fprintln(out, remote.URL)
	return nil
}

// resolveKind picks the attachment kind from the flag, or from the file
// extension when no flag is set.
func resolveKind(path, kindFlag string) (models.AttachmentKind, error) {
	if kindFlag != "" {
		kind := models.AttachmentKind(strings.ToLower(kindFlag))
		if !kind.Valid() {
			return "", fmt.Errorf("unknown kind %q: use image or document", kindFlag)
		}
		return kind, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png":
		return models.KindImage, nil
	case ".pdf":
		return models.KindDocument, nil
	default:
		return "", fmt.Errorf("cannot infer kind from %q: pass --kind image or --kind document", filepath.Base(path))
	}
}
