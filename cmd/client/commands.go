package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
)

var flagUploadName string

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a file to the cluster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, engine, err := clientSetup()
		if err != nil {
			return err
		}

		path := args[0]
		name := flagUploadName
		if name == "" {
			name = filepath.Base(path)
		}

		result, err := engine.Upload(cmd.Context(), path, name)
		if err != nil {
			return err
		}
		if !result.OK {
			failed := 0
			for _, cr := range result.Chunks {
				if !cr.OK {
					failed++
				}
			}
			fmt.Printf("WARNING: %d/%d chunks failed to upload; %s may be incomplete\n",
				failed, len(result.Chunks), name)
			return nil
		}
		fmt.Printf("Uploaded %s (%d bytes, %d chunks) at %.2f MB/s\n",
			name, result.Bytes, len(result.Chunks), result.ThroughputMBps())
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <filename> <output>",
	Short: "Download a file from the cluster",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, engine, err := clientSetup()
		if err != nil {
			return err
		}

		result, err := engine.Download(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Downloaded %s to %s (%d bytes, %d chunks) at %.2f MB/s\n",
			result.Filename, args[1], result.Bytes, result.Chunks, result.ThroughputMBps())
		return nil
	},
}

var listFilesCmd = &cobra.Command{
	Use:   "listfiles",
	Short: "List all files stored in the cluster",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		coordClient, _, err := clientSetup()
		if err != nil {
			return err
		}

		files, err := coordClient.ListFiles(cmd.Context())
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("No files found in the system.")
			return nil
		}

		names := make([]string, 0, len(files))
		for name := range files {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Println("Files in the system:")
		for _, name := range names {
			info := files[name]
			fmt.Printf("  %s - %.2f MB - Created: %s\n",
				name, float64(info.Size)/1024/1024, info.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <filename>",
	Short: "Show a file's chunk plan and node distribution",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coordClient, _, err := clientSetup()
		if err != nil {
			return err
		}

		info, err := coordClient.GetFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("File: %s\n", args[0])
		fmt.Printf("ID: %s\n", info.FileID)
		fmt.Printf("Size: %d bytes (%.2f MB)\n", info.Size, float64(info.Size)/1024/1024)
		fmt.Printf("Created: %s\n", info.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Chunks: %d\n", len(info.Chunks))

		distribution := make(map[string]int)
		var nodeIDs []string
		for _, chunk := range info.Chunks {
			if _, seen := distribution[chunk.NodeID]; !seen {
				nodeIDs = append(nodeIDs, chunk.NodeID)
			}
			distribution[chunk.NodeID]++
		}

		fmt.Println("\nChunk distribution across nodes:")
		for _, nodeID := range nodeIDs {
			fmt.Printf("  Node %s: %d chunks\n", nodeID, distribution[nodeID])
		}
		return nil
	},
}

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List registered storage nodes and their liveness",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		coordClient, _, err := clientSetup()
		if err != nil {
			return err
		}

		nodes, err := coordClient.Nodes(cmd.Context())
		if err != nil {
			return err
		}
		if len(nodes) == 0 {
			fmt.Println("No storage nodes registered.")
			return nil
		}

		for _, node := range nodes {
			state := "dead"
			if node.Alive {
				state = "alive"
			}
			fmt.Printf("  %s  %s  %s  last heartbeat %s\n",
				node.ID, node.URL, state, node.LastHeartbeat.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&flagUploadName, "name", "", "name to store the file as (defaults to the local filename)")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(listFilesCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(nodesCmd)
}
