package cmd

import (
	metadata "github.com/aarsakian/DiskTree/FS"
	"github.com/aarsakian/DiskTree/tree"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func DefineLsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ls <evidence> [path]",
		Short:        "List a directory of the selected partition",
		Args:         cobra.RangeArgs(1, 2),
		SilenceUsage: true,
		RunE:         RunLs,
	}
	defineReportFlags(cmd)
	return cmd
}

func RunLs(cmd *cobra.Command, args []string) error {
	dirPath := "/"
	if len(args) == 2 {
		dirPath = args[1]
	}
	physicalDisk, ntfs, conf, err := openVolume(cmd, args[0])
	if err != nil {
		return err
	}
	defer physicalDisk.Close()

	recordsTree, err := buildTree(ntfs)
	if err != nil {
		return err
	}
	node, err := recordsTree.Find(dirPath)
	if err != nil {
		return err
	}
	if node.Err != nil {
		return errors.Wrapf(node.Err, "listing %s", dirPath)
	}

	nodes := node.GetChildren()
	if !node.IsFolder() {
		nodes = []*tree.Node{node}
	}
	return newReporter(cmd, conf.ReportFormat).Show(cmd.OutOrStdout(), toMetadata(nodes))
}

func toMetadata(nodes []*tree.Node) []metadata.Record {
	records := make([]metadata.Record, 0, len(nodes))
	for _, node := range nodes {
		records = append(records, metadata.NTFSRecord{Record: node.Record})
	}
	return records
}
