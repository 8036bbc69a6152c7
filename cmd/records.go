package cmd

import (
	"github.com/aarsakian/DiskTree/filters"
	"github.com/aarsakian/DiskTree/reporter"
	"github.com/spf13/cobra"
)

func DefineRecordsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "records <evidence>",
		Short:        "List the MFT records of the selected partition",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunRecords,
	}
	defineFilterFlags(cmd)
	defineReportFlags(cmd)
	return cmd
}

func defineFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("names", nil, "keep records with these file names")
	cmd.Flags().StringSlice("extensions", nil, "keep records with these file name extensions")
	cmd.Flags().String("under", "", "keep records stored below this directory e.g. /Windows/System32")
	cmd.Flags().Bool("deleted", false, "keep deleted records only")
	cmd.Flags().Bool("orphans", false, "keep records whose parent is not known")
	cmd.Flags().Bool("folders", true, "keep folders")
}

func defineReportFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "", "output format (text, yaml)")
	cmd.Flags().Bool("timestamps", false, "show timestamps")
	cmd.Flags().Bool("filesize", false, "show logical and physical size")
	cmd.Flags().Bool("fullpath", false, "show the path of each record")
}

func newFilterManager(cmd *cobra.Command) filters.FilterManager {
	var flm filters.FilterManager
	if names, _ := cmd.Flags().GetStringSlice("names"); len(names) > 0 {
		flm.Register(filters.NameFilter{Filenames: names})
	}
	if extensions, _ := cmd.Flags().GetStringSlice("extensions"); len(extensions) > 0 {
		flm.Register(filters.ExtensionsFilter{Extensions: extensions})
	}
	if under, _ := cmd.Flags().GetString("under"); under != "" {
		flm.Register(filters.UnderPathFilter{DirPath: under})
	}
	deleted, _ := cmd.Flags().GetBool("deleted")
	flm.Register(filters.DeletedFilter{Include: deleted})
	orphans, _ := cmd.Flags().GetBool("orphans")
	flm.Register(filters.OrphansFilter{Include: orphans})
	folders, _ := cmd.Flags().GetBool("folders")
	flm.Register(filters.FoldersFilter{Include: folders})
	return flm
}

func newReporter(cmd *cobra.Command, defaultFormat string) reporter.Reporter {
	rp := reporter.Reporter{Format: defaultFormat}
	if format, _ := cmd.Flags().GetString("format"); format != "" {
		rp.Format = format
	}
	rp.ShowTimestamps, _ = cmd.Flags().GetBool("timestamps")
	rp.ShowFileSize, _ = cmd.Flags().GetBool("filesize")
	rp.ShowPath, _ = cmd.Flags().GetBool("fullpath")
	return rp
}

func RunRecords(cmd *cobra.Command, args []string) error {
	physicalDisk, ntfs, conf, err := openVolume(cmd, args[0])
	if err != nil {
		return err
	}
	defer physicalDisk.Close()

	flm := newFilterManager(cmd)
	records := flm.ApplyFilters(ntfs.GetFS())
	return newReporter(cmd, conf.ReportFormat).Show(cmd.OutOrStdout(), records)
}
