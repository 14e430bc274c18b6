package main

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vegasq/piiscrub/pii"
	"github.com/vegasq/piiscrub/reader"
	"github.com/vegasq/piiscrub/request"
	"github.com/vegasq/piiscrub/storage"
)

var detectCmd = &cobra.Command{
	Use:   "detect <scheme://bucket/key>",
	Short: "Report which columns of a file look like PII",
	Long: `Detect lists the columns of a stored file together with each
classifier's score. The heuristic classifier always runs; --ai adds the
Ollama classifier.

With --envelope a request envelope for the detected fields is printed
instead of the table, ready to pass to 'piiscrub run'.`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().Bool("ai", false, "also ask the Ollama classifier")
	detectCmd.Flags().Bool("envelope", false, "print a request envelope for the detected fields")

	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	useAI, _ := cmd.Flags().GetBool("ai")
	asEnvelope, _ := cmd.Flags().GetBool("envelope")

	loc, err := request.ParseLocation(args[0])
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Detect.AI = cfg.Detect.AI || useAI

	classifiers, err := buildClassifiers(cfg, logger, true)
	if err != nil {
		return err
	}

	store := storage.NewOS(cfg.Storage.Root, logger.Named("storage"))
	content, f, err := store.Read(loc.Bucket, loc.Key)
	if err != nil {
		return err
	}
	infos, err := reader.ExtractSchemaInfo(content, f)
	if err != nil {
		return err
	}
	columns := make([]string, len(infos))
	for i, info := range infos {
		columns[i] = info.Name
	}

	detector := pii.NewDetector(cfg.Detect.Threshold, logger.Named("detect"), classifiers...)
	detection := detector.Detect(commandContext(cmd), columns, nil)
	for _, err := range detection.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}

	if asEnvelope {
		envelope, err := (&request.Request{Location: loc, Fields: detection.Fields}).Encode()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), envelope)
		return nil
	}

	renderDetection(cmd, infos, classifiers, detection)
	return nil
}

func renderDetection(cmd *cobra.Command, infos []reader.SchemaInfo, classifiers []pii.Classifier, detection *pii.Detection) {
	scores := make(map[string]map[string]pii.Verdict, len(classifiers))
	header := []string{"Column", "Type"}
	for _, c := range classifiers {
		header = append(header, c.Name())
		byColumn := make(map[string]pii.Verdict)
		for _, v := range detection.Verdicts[c.Name()] {
			byColumn[v.ColumnName] = v
		}
		scores[c.Name()] = byColumn
	}
	header = append(header, "PII")

	detected := make(map[string]bool, len(detection.Fields))
	for _, f := range detection.Fields {
		detected[f] = true
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)

	for _, info := range infos {
		row := []string{info.Name, info.Type}
		for _, c := range classifiers {
			v, ok := scores[c.Name()][info.Name]
			if !ok {
				row = append(row, "-")
				continue
			}
			row = append(row, fmt.Sprintf("%.2f", v.Score))
		}
		mark := ""
		if detected[info.Name] {
			mark = "yes"
		}
		row = append(row, mark)
		table.Append(row)
	}
	table.Render()

	fmt.Fprintf(cmd.OutOrStdout(), "Detected: %s\n", strings.Join(detection.Fields, ", "))
}
