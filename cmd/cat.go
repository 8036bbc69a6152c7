package cmd

import (
	MFTAttributes "github.com/aarsakian/DiskTree/FS/NTFS/MFT/attributes"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const catChunkSize = 1 << 20

func DefineCatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "cat <evidence> <path>",
		Short:        "Write the content of a file of the selected partition",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         RunCat,
	}
	cmd.Flags().String("stream", "", "name of the data stream, empty for the unnamed one")
	return cmd
}

func RunCat(cmd *cobra.Command, args []string) error {
	streamName, _ := cmd.Flags().GetString("stream")
	physicalDisk, ntfs, _, err := openVolume(cmd, args[0])
	if err != nil {
		return err
	}
	defer physicalDisk.Close()

	recordsTree, err := buildTree(ntfs)
	if err != nil {
		return err
	}
	node, err := recordsTree.Find(args[1])
	if err != nil {
		return err
	}
	if node.IsFolder() {
		return errors.Errorf("%s is a directory", args[1])
	}

	stream, err := ntfs.OpenAttribute(node.Record, MFTAttributes.DataType, streamName)
	if err != nil {
		return err
	}
	size := stream.GetDiskSize()
	for offset := int64(0); offset < size; offset += catChunkSize {
		data, err := stream.ReadAbsolute(offset, int(min(catChunkSize, size-offset)))
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		if err != nil {
			return err
		}
	}
	return nil
}
