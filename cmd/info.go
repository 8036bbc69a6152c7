package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func DefineInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "info <evidence>",
		Short:        "Show the NTFS volume of the selected partition",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunInfo,
	}
}

func RunInfo(cmd *cobra.Command, args []string) error {
	physicalDisk, ntfs, conf, err := openVolume(cmd, args[0])
	if err != nil {
		return err
	}
	defer physicalDisk.Close()

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Partition %d %s\n", conf.Partition, ntfs.GetInfo())
	fmt.Fprintf(w, "MFT record size %d entries %d in use %d\n", ntfs.MFT.RecordSize, ntfs.MFT.Size, len(ntfs.MFT.GetRecords()))
	if len(ntfs.MFT.CorruptEntries) > 0 {
		fmt.Fprintf(w, "corrupt entries %v\n", ntfs.MFT.CorruptEntries)
	}
	if physicalDisk.VMDK != nil {
		fmt.Fprintf(w, "VMDK %s\n", physicalDisk.VMDK.GetInfo())
	}
	return nil
}
