package receipt

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

// AnalysisFileName is what the monthly report scans for.
const AnalysisFileName = "receipt-analysis.json"

/*
RunDirPath is <outputDir>/<Month-YYYY>/<YYYY-MM-DD_hh-mm-ss>_<short run id>.
*/
func RunDirPath(outputDir string, result Result) string {
	shortID := result.RunID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	month := result.StartedAt.Format("January-2006")
	timestamp := result.StartedAt.Format("2006-01-02_15-04-05")
	return filepath.Join(outputDir, month, timestamp+"_"+shortID)
}

/*
SaveArtifacts writes every intermediate of a successful run into its run
directory:

	orig.<ext>              original upload
	clean.png               preprocessed image
	ocr-<mode>.txt          text of each OCR pass
	ocr.txt                 text handed to the parser
	products.json           classified products
	receipt-analysis.json   receipt analysis
	run.json                the whole result minus images
*/
func SaveArtifacts(outputDir string, result Result, original []byte, originalExt string) (runDirPath string, e *xerr.Error) {
	normalizedOutputDir := strings.TrimSpace(outputDir)
	if normalizedOutputDir == "" {
		normalizedOutputDir = DefaultValueConfig().OutputDir
	}

	runDirPath = RunDirPath(normalizedOutputDir, result)
	e = ensureOutputDirectory(runDirPath)
	if e != nil {
		return runDirPath, e
	}

	ext := strings.ToLower(originalExt)
	if ext == "" {
		ext = ".jpg"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	files := []artifactFile{
		{"orig" + ext, original},
		{"clean.png", result.CleanImage},
		{"ocr.txt", []byte(result.Correction.Text)},
	}
	for _, pass := range result.OCR.Passes {
		name := "ocr-" + strings.ToLower(strings.ReplaceAll(string(pass.Mode), "_", "-")) + ".txt"
		files = append(files, artifactFile{name, []byte(pass.Text)})
	}

	for _, file := range files {
		if len(file.data) == 0 {
			continue
		}
		e = saveBytesToFile(filepath.Join(runDirPath, file.name), file.data)
		if e != nil {
			return runDirPath, e
		}
	}

	e = saveJSONToFile(filepath.Join(runDirPath, "products.json"), result.Products)
	if e != nil {
		return runDirPath, e
	}
	e = saveJSONToFile(filepath.Join(runDirPath, AnalysisFileName), result.Analysis)
	if e != nil {
		return runDirPath, e
	}
	e = saveJSONToFile(filepath.Join(runDirPath, "run.json"), result)
	if e != nil {
		return runDirPath, e
	}

	tl.Log(tl.Info1, palette.Green, "Saved artifacts of run '%s' to '%s'", result.RunID, runDirPath)
	return runDirPath, nil
}

type artifactFile struct {
	name string
	data []byte
}

/*
ensureOutputDirectory creates the target directory (and parents) if needed.
*/
func ensureOutputDirectory(outputDirPath string) (e *xerr.Error) {
	err := os.MkdirAll(outputDirPath, 0o755)
	if err != nil {
		return xerr.NewError(err, "create output directory", outputDirPath)
	}

	tl.Log(tl.Info1, palette.Blue, "Ensured output directory '%s'", outputDirPath)
	return nil
}

func saveBytesToFile(destinationPath string, data []byte) (e *xerr.Error) {
	writeErr := os.WriteFile(destinationPath, data, 0o644)
	if writeErr != nil {
		return xerr.NewError(writeErr, "write artifact file", destinationPath)
	}

	tl.Log(tl.Verbose, palette.Green, "Saved '%s' (%v bytes)", destinationPath, len(data))
	return nil
}

/*
saveJSONToFile marshals value to pretty-printed JSON and writes it to
destinationPath, overwriting any existing file.
*/
func saveJSONToFile(destinationPath string, value any) (e *xerr.Error) {
	jsonBytes, marshalErr := json.MarshalIndent(value, "", "  ")
	if marshalErr != nil {
		return xerr.NewError(marshalErr, "marshal value to JSON", destinationPath)
	}

	writeErr := os.WriteFile(destinationPath, jsonBytes, 0o644)
	if writeErr != nil {
		return xerr.NewError(writeErr, "write JSON file", destinationPath)
	}

	tl.Log(tl.Verbose, palette.Green, "Saved JSON data to '%s'", destinationPath)
	return nil
}
