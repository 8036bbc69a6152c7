package cmd

import (
	"github.com/aarsakian/DiskTree/config"
	"github.com/aarsakian/DiskTree/disk"
	"github.com/aarsakian/DiskTree/disk/volume"
	"github.com/aarsakian/DiskTree/logger"
	"github.com/aarsakian/DiskTree/tree"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const AppName = "disktree"

func Execute() error {
	return NewRootCommand().Execute()
}

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   AppName,
		Short: AppName + " - read NTFS volumes of raw and sparse VMDK disk images",
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", AppName+".ini", "path to the ini configuration file")
	flags.Bool("log", false, "enable logging")
	flags.String("logfile", "", "path of the log file")
	flags.String("mode", "", "access mode of the evidence (raw, mmap, device, vmdk)")
	flags.IntP("partition", "p", 0, "select partition number, -1 for all")
	flags.Int("grain-cache-size", 0, "number of VMDK grains kept in memory")
	flags.Int("root-scan-limit", 0, "number of MFT entries searched for the root directory")

	rootCmd.AddCommand(
		DefinePartitionsCommand(),
		DefineInfoCommand(),
		DefineRecordsCommand(),
		DefineLsCommand(),
		DefineTreeCommand(),
		DefineCatCommand(),
		DefineExportCommand(),
	)
	return rootCmd
}

// loadOptions merges the configuration file with the flags set on the command line.
func loadOptions(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	conf, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("log") {
		conf.LogEnabled, _ = cmd.Flags().GetBool("log")
	}
	if cmd.Flags().Changed("logfile") {
		conf.LogFile, _ = cmd.Flags().GetString("logfile")
	}
	if cmd.Flags().Changed("mode") {
		conf.Mode, _ = cmd.Flags().GetString("mode")
	}
	if cmd.Flags().Changed("partition") {
		conf.Partition, _ = cmd.Flags().GetInt("partition")
	}
	if cmd.Flags().Changed("grain-cache-size") {
		conf.GrainCacheSize, _ = cmd.Flags().GetInt("grain-cache-size")
	}
	if cmd.Flags().Changed("root-scan-limit") {
		conf.RootScanLimit, _ = cmd.Flags().GetInt("root-scan-limit")
	}
	if conf.GrainCacheSize <= 0 {
		return nil, errors.Errorf("grain cache size must be positive, got %d", conf.GrainCacheSize)
	}

	logger.InitializeLogger(conf.LogEnabled, conf.LogFile)
	return conf, nil
}

func openDisk(evidence string, conf *config.Config) (*disk.Disk, error) {
	physicalDisk := &disk.Disk{RootScanLimit: conf.RootScanLimit}
	err := physicalDisk.Initialize(evidence, conf.Mode, conf.GrainCacheSize)
	if err != nil {
		return nil, err
	}
	return physicalDisk, nil
}

// openVolume processes the selected partition of the evidence and returns its NTFS volume.
func openVolume(cmd *cobra.Command, evidence string) (*disk.Disk, *volume.NTFS, *config.Config, error) {
	conf, err := loadOptions(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	if conf.Partition < 0 {
		return nil, nil, nil, errors.New("a single partition must be selected")
	}
	physicalDisk, err := openDisk(evidence, conf)
	if err != nil {
		return nil, nil, nil, err
	}
	_, err = physicalDisk.Process(conf.Partition)
	if err != nil {
		physicalDisk.Close()
		return nil, nil, nil, err
	}
	ntfs, err := physicalDisk.GetNTFS(conf.Partition)
	if err != nil {
		physicalDisk.Close()
		return nil, nil, nil, err
	}
	return physicalDisk, ntfs, conf, nil
}

func buildTree(ntfs *volume.NTFS) (tree.Tree, error) {
	var recordsTree tree.Tree
	err := recordsTree.Build(ntfs)
	return recordsTree, err
}
