package cmd

import (
	"fmt"

	"github.com/aarsakian/DiskTree/exporter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func DefineExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "export <evidence>",
		Short:        "Copy files or unallocated clusters of the selected partition to a directory",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunExport,
	}
	defineFilterFlags(cmd)
	cmd.Flags().StringP("location", "o", "", "the path to export files")
	cmd.Flags().String("hash", "", "hash exported files (MD5, SHA1)")
	cmd.Flags().String("strategy", "", "naming of exported files (overwrite, Id)")
	cmd.Flags().Bool("unallocated", false, "export the unallocated clusters instead of files")
	return cmd
}

func RunExport(cmd *cobra.Command, args []string) error {
	physicalDisk, ntfs, conf, err := openVolume(cmd, args[0])
	if err != nil {
		return err
	}
	defer physicalDisk.Close()

	exp := exporter.Exporter{Location: conf.ExportLocation, Hash: conf.ExportHash, Strategy: conf.ExportStrategy}
	if location, _ := cmd.Flags().GetString("location"); location != "" {
		exp.Location = location
	}
	if hash, _ := cmd.Flags().GetString("hash"); hash != "" {
		exp.Hash = hash
	}
	if strategy, _ := cmd.Flags().GetString("strategy"); strategy != "" {
		exp.Strategy = strategy
	}
	if exp.Location == "" {
		return errors.New("no export location, use --location or the [export] section of the configuration")
	}

	if unallocated, _ := cmd.Flags().GetBool("unallocated"); unallocated {
		return exp.ExportUnallocated(*physicalDisk, conf.Partition)
	}

	flm := newFilterManager(cmd)
	exported, err := exp.ExportRecords(ntfs, flm.ApplyFilters(ntfs.GetFS()))
	for _, exportedFile := range exported {
		fmt.Fprintf(cmd.OutOrStdout(), "%d %s %d %s\n", exportedFile.ID, exportedFile.Path, exportedFile.Size, exportedFile.Hash)
	}
	return err
}
