package cmd

import (
	"github.com/aarsakian/DiskTree/disk"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func DefinePartitionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "partitions <evidence>",
		Short:        "List the partitions of a disk image and the volumes found in them",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunPartitions,
	}
}

func RunPartitions(cmd *cobra.Command, args []string) error {
	conf, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	physicalDisk, err := openDisk(args[0], conf)
	if err != nil {
		return err
	}
	defer physicalDisk.Close()

	err = physicalDisk.DiscoverPartitions()
	if errors.Is(err, disk.ErrNTFSVol) {
		physicalDisk.CreatePseudoMBR("NTFS")
	} else if err != nil {
		return err
	}
	physicalDisk.ProcessPartitions(-1)

	physicalDisk.ListPartitions(cmd.OutOrStdout())
	physicalDisk.ShowVolumeInfo(cmd.OutOrStdout())
	return nil
}
