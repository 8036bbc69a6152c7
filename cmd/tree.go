package cmd

import (
	"github.com/aarsakian/DiskTree/reporter"
	"github.com/spf13/cobra"
)

func DefineTreeCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "tree <evidence>",
		Short:        "Show the directory tree of the selected partition",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunTree,
	}
}

func RunTree(cmd *cobra.Command, args []string) error {
	physicalDisk, ntfs, _, err := openVolume(cmd, args[0])
	if err != nil {
		return err
	}
	defer physicalDisk.Close()

	recordsTree, err := buildTree(ntfs)
	if err != nil {
		return err
	}
	reporter.Reporter{ShowTree: true}.ShowDirectoryTree(cmd.OutOrStdout(), recordsTree)
	return nil
}
